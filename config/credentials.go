package config

import (
	"fmt"

	"github.com/relloyd/obspipe/helper"
)

// APICredentialsKey is the key the API credentials are stored under in the credentials file.
const APICredentialsKey = "api"

// APICredentials are the login details of the observation API.
type APICredentials struct {
	BaseURL     string `json:"baseUrl" yaml:"baseUrl" errorTxt:"API base URL" mandatory:"yes" validate:"url"`
	UserLogonID string `json:"userLogonId" yaml:"userLogonId" errorTxt:"API user logon id" mandatory:"yes"`
	Password    string `json:"password" yaml:"password" errorTxt:"API password" mandatory:"yes"`
}

// String hides the password.
func (a APICredentials) String() string {
	return fmt.Sprintf("  baseUrl = %v\n  userLogonId = %v\n  password = xxxxx", a.BaseURL, a.UserLogonID)
}

// SaveAPICredentials validates and stores a in f.
func SaveAPICredentials(f *File, a APICredentials) error {
	if err := helper.ValidateStruct(&a); err != nil {
		return err
	}
	return f.Set(APICredentialsKey, a)
}

// LoadAPICredentials reads the API credentials from f.
func LoadAPICredentials(f *File) (APICredentials, error) {
	a := APICredentials{}
	if err := f.Get(APICredentialsKey, &a); err != nil {
		return a, err
	}
	return a, nil
}
