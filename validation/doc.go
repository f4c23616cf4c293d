// Package validation checks configuration structs.
//
// Struct tags are evaluated with go-playground/validator. Besides the
// built-in tags, "base_url" accepts absolute http(s) URLs whose path ends
// in "/", the shape every relative method path is resolved against.
//
//	type Config struct {
//	    BaseURL string `validate:"required,base_url"`
//	}
//	err := validation.Validate(cfg)
//
// Rules that depend on several fields are collected with a Validator:
//
//	v := validation.New()
//	v.Required("token", cfg.Token).OneOf("in", cfg.In, []string{"header", "query"})
//	err := v.Validate()
package validation
