package spinwheel

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Lead is the contact form record submitted at the booth
type Lead struct {
	FullName         string `json:"full_name" validate:"required,min=2,max=100,fullname"`
	WorkEmail        string `json:"work_email" validate:"required,email,max=255,workemail"`
	Phone            string `json:"phone" validate:"required,min=8,max=20,startswith=+"`
	OrganizationName string `json:"organization_name" validate:"required,min=2,max=200,orgname"`
}

var (
	fullNamePattern = regexp.MustCompile(`^[a-zA-Z\s]+$`)
	orgNamePattern  = regexp.MustCompile(`^[a-zA-Z0-9\s.&\-']+$`)
)

// BlockedEmailDomains are personal mail providers rejected for work emails.
var BlockedEmailDomains = []string{
	"gmail.com", "yahoo.com", "outlook.com", "hotmail.com", "protonmail.com",
	"aol.com", "icloud.com", "mail.com", "zoho.com", "yandex.com",
	"gmx.com", "live.com", "msn.com", "inbox.com", "me.com",
	"yahoo.co.in", "yahoo.co.uk", "rediffmail.com", "fastmail.com",
	"tutanota.com", "mailfence.com", "hushmail.com",
}

// NewLeadValidator returns a validator with the lead form's custom tags registered.
func NewLeadValidator() *validator.Validate {
	v := validator.New()

	blocked := make(map[string]struct{}, len(BlockedEmailDomains))
	for _, d := range BlockedEmailDomains {
		blocked[d] = struct{}{}
	}

	// registration only fails on empty tags or nil funcs
	_ = v.RegisterValidation("fullname", func(fl validator.FieldLevel) bool {
		return fullNamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("orgname", func(fl validator.FieldLevel) bool {
		return orgNamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("workemail", func(fl validator.FieldLevel) bool {
		email := fl.Field().String()
		at := strings.LastIndex(email, "@")
		if at < 0 {
			return false
		}
		_, isPersonal := blocked[strings.ToLower(email[at+1:])]
		return !isPersonal
	})

	return v
}

// Normalize trims surrounding whitespace from every text field.
func (l *Lead) Normalize() {
	l.FullName = strings.TrimSpace(l.FullName)
	l.WorkEmail = strings.TrimSpace(l.WorkEmail)
	l.Phone = strings.TrimSpace(l.Phone)
	l.OrganizationName = strings.TrimSpace(l.OrganizationName)
}

// ValidateLead normalizes lead in place and validates it with v.
func ValidateLead(v *validator.Validate, lead *Lead) error {
	if lead == nil {
		return ErrValidationFailure.WithDetails("lead is required")
	}
	lead.Normalize()

	if err := v.Struct(lead); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return ErrValidationFailure.WithDetails(describeValidationErrors(verrs)).WithCause(err)
		}
		return ErrValidationFailure.WithCause(err)
	}
	return nil
}

func describeValidationErrors(errs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("field %s is required", err.Field()))
		case "min", "max":
			msgs = append(msgs, fmt.Sprintf("field %s has an invalid length", err.Field()))
		case "email":
			msgs = append(msgs, fmt.Sprintf("field %s must be a valid email address", err.Field()))
		case "workemail":
			msgs = append(msgs, fmt.Sprintf("field %s must be a company email address", err.Field()))
		case "fullname":
			msgs = append(msgs, fmt.Sprintf("field %s may only contain letters and spaces", err.Field()))
		case "orgname":
			msgs = append(msgs, fmt.Sprintf("field %s may only contain letters, numbers and basic punctuation", err.Field()))
		case "startswith":
			msgs = append(msgs, fmt.Sprintf("field %s must start with a country code", err.Field()))
		default:
			msgs = append(msgs, fmt.Sprintf("field %s is invalid", err.Field()))
		}
	}
	return strings.Join(msgs, ", ")
}

// SplitPhone splits a country-code-prefixed phone into country code and
// national number. It assumes a 10 digit national number and is only as good
// as that assumption; for short numbers the first 3 characters are the country code.
func SplitPhone(phone string) (country, number string) {
	n := 3
	if len(phone) > 10 {
		n = len(phone) - 10
	}
	if n > len(phone) {
		n = len(phone)
	}
	return phone[:n], phone[n:]
}

// ContactDetails builds the stored contact details of the lead.
func (l *Lead) ContactDetails() ContactDetails {
	country, number := SplitPhone(l.Phone)
	return ContactDetails{
		Phone:            l.Phone,
		PhoneCountry:     country,
		PhoneNumber:      number,
		OrganizationName: l.OrganizationName,
	}
}
