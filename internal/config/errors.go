package config

import "github.com/pkg/errors"

func errMissing(key string) error {
	return errors.Errorf("config: %s is required", key)
}

func errInvalid(msg string) error {
	return errors.New("config: " + msg)
}
