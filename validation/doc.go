// Package validation validates configuration structs.
//
// Validate runs go-playground/validator over `validate` struct tags and
// reports fields by their mapstructure names. Validator collects
// programmatic checks for rules tags cannot express.
//
//	if err := validation.Validate(cfg); err != nil { ... }
//
//	v := validation.New()
//	v.Required("auth.token", a.Token)
//	err := v.Err()
//
// Both return a *errors.AppError with code ErrCodeInvalidInput.
package validation
