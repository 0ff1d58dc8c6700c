package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()

	// Use JSON tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	registerCustomValidations()
}

func registerCustomValidations() {
	// Staff role validation
	validate.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		role := fl.Field().String()
		validRoles := []string{"owner", "admin", "manager", "cashier"}
		for _, r := range validRoles {
			if role == r {
				return true
			}
		}
		return false
	})

	// Phone validation: digits with optional leading plus
	validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		phone := fl.Field().String()
		if len(phone) < 7 || len(phone) > 16 {
			return false
		}
		for i, c := range phone {
			if c == '+' && i == 0 {
				continue
			}
			if c < '0' || c > '9' {
				return false
			}
		}
		return true
	})

	// OTP validation: exactly six digits, leading zeros allowed
	validate.RegisterValidation("otp", func(fl validator.FieldLevel) bool {
		code := fl.Field().String()
		if len(code) != 6 {
			return false
		}
		for _, c := range code {
			if c < '0' || c > '9' {
				return false
			}
		}
		return true
	})
}

// Validate validates a struct and returns a map of field errors
func Validate(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	errors := make(map[string]string)
	for _, err := range err.(validator.ValidationErrors) {
		field := err.Field()
		switch err.Tag() {
		case "required":
			errors[field] = "This field is required"
		case "min":
			errors[field] = "Value is below the allowed minimum"
		case "max":
			errors[field] = "Value is above the allowed maximum"
		case "gt":
			errors[field] = "Value must be greater than " + err.Param()
		case "role":
			errors[field] = "Invalid role"
		case "phone":
			errors[field] = "Invalid phone number"
		case "otp":
			errors[field] = "Code must be exactly 6 digits"
		case "uuid":
			errors[field] = "Invalid identifier"
		default:
			errors[field] = "Invalid value"
		}
	}
	return errors
}
