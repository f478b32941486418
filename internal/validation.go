package internal

import (
	"errors"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Registration only fails on an empty tag or nil func.
	_ = v.RegisterValidation("nowhitespace", func(fl validator.FieldLevel) bool {
		return !strings.ContainsFunc(fl.Field().String(), unicode.IsSpace)
	})
	return v
}

var fieldMessages = map[string]map[string]string{
	"FirstName": {
		"": "First name must be between 3 and 10 alphabetic characters.",
	},
	"LastName": {
		"": "Last name must be between 3 and 10 alphabetic characters.",
	},
	"Username": {
		"":             "Username must be between 3 and 32 characters.",
		"nowhitespace": "Username must not contain spaces.",
	},
	"Password": {
		"":             "Password must be at least 7 characters long.",
		"nowhitespace": "Password must not contain spaces.",
	},
	"ConfirmPassword": {
		"": "Passwords do not match.",
	},
	"Name": {
		"":    "Folder name is required.",
		"max": "Folder name must be at most 64 characters.",
	},
}

// ValidateForm runs the struct's validate tags and returns one readable
// message per failing field, in field order.
func ValidateForm(form any) []string {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}

	messages := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		messages = append(messages, messageFor(fe))
	}
	return messages
}

func messageFor(fe validator.FieldError) string {
	byTag, ok := fieldMessages[fe.StructField()]
	if !ok {
		return fe.Error()
	}
	if msg, ok := byTag[fe.Tag()]; ok {
		return msg
	}
	return byTag[""]
}
