package utils

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"

	"portal-backend/shared/apperrors"
	"portal-backend/shared/utils/payload"
)

// UserFields are the validated user attributes.
type UserFields struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Phone     string `json:"phone" validate:"required,phone"`
	Password  string `json:"password" validate:"required,password"`
	Address1  string `json:"address1" validate:"max=255"`
	Address2  string `json:"address2" validate:"max=255"`
	Zipcode   string `json:"zipcode" validate:"max=10"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once

	phoneRegex = regexp.MustCompile(`^\+?[0-9][0-9 ()/-]{5,19}$`)
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
			return phoneRegex.MatchString(fl.Field().String())
		})
		_ = validate.RegisterValidation("password", func(fl validator.FieldLevel) bool {
			return len(PasswordProblems(fl.Field().String())) == 0
		})
	})
	return validate
}

// PasswordProblems lists every strength rule the password breaks.
func PasswordProblems(password string) []string {
	var problems []string
	if len([]rune(password)) < 8 {
		problems = append(problems, "This password is too short. It must contain at least 8 characters.")
	}

	var letters, digits int
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			letters++
		case unicode.IsDigit(r):
			digits++
		}
	}
	if password != "" && digits == len([]rune(password)) {
		problems = append(problems, "This password is entirely numeric.")
	}
	if letters == 0 || digits == 0 {
		problems = append(problems, "This password must contain at least one letter and one digit.")
	}
	return problems
}

// ValidateUserPayload validates a user payload. Registration checks every
// field; change mode only checks the fields that were supplied with a value.
func ValidateUserPayload(p *payload.UserPayload, isUpdate bool) map[string][]string {
	fields := UserFields{
		Email:     strings.TrimSpace(p.Email.Value),
		FirstName: strings.TrimSpace(p.FirstName.Value),
		LastName:  strings.TrimSpace(p.LastName.Value),
		Phone:     strings.TrimSpace(p.Phone.Value),
		Password:  p.Password.Value,
		Address1:  p.Address1.Value,
		Address2:  p.Address2.Value,
		Zipcode:   p.Zipcode.Value,
	}

	v := getValidator()
	var err error
	if isUpdate {
		supplied := suppliedFields(p)
		if len(supplied) == 0 {
			return nil
		}
		err = v.StructPartial(fields, supplied...)
	} else {
		err = v.Struct(fields)
	}
	return fieldErrors(err, fields)
}

func suppliedFields(p *payload.UserPayload) []string {
	candidates := []struct {
		name  string
		value payload.Optional[string]
	}{
		{"Email", p.Email},
		{"FirstName", p.FirstName},
		{"LastName", p.LastName},
		{"Phone", p.Phone},
		{"Password", p.Password},
		{"Address1", p.Address1},
		{"Address2", p.Address2},
		{"Zipcode", p.Zipcode},
	}

	var names []string
	for _, c := range candidates {
		if _, ok := payload.Text(c.value); ok {
			names = append(names, c.name)
		}
	}
	return names
}

func fieldErrors(err error, fields UserFields) map[string][]string {
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string][]string{"non_field_errors": {err.Error()}}
	}

	out := map[string][]string{}
	for _, fe := range verrs {
		name := fe.Field()
		switch fe.Tag() {
		case "required":
			out[name] = append(out[name], apperrors.MsgRequired)
		case "email":
			out[name] = append(out[name], "Enter a valid email address.")
		case "phone":
			out[name] = append(out[name], "Enter a valid phone number.")
		case "max":
			out[name] = append(out[name], fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param()))
		case "password":
			out[name] = append(out[name], PasswordProblems(fields.Password)...)
		default:
			out[name] = append(out[name], "Enter a valid value.")
		}
	}
	return out
}
