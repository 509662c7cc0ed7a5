package helper

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/relloyd/obspipe/constants"
)

// GetEnvVar fetches OS environment variable.
// If the variable is not set it returns empty string.
// It also returns an error if there is a missing value AND mandatory == true.
func GetEnvVar(k string, mandatory bool) (string, error) {
	if value := os.Getenv(k); value != "" {
		return value, nil
	} else {
		if mandatory {
			return "", fmt.Errorf("environment variable %v is not set", k)
		} else {
			return "", nil
		}
	}
}

// ReadValueFromEnv will read the env var called name and populate the supplied val.
// If the env var is not set then return an error.
func ReadValueFromEnv(name string, val *string) error {
	v := os.Getenv(name)
	if v != "" { // if the environment variable was set...
		*val = v // update the callers value
		return nil
	} else { // else there was no environment variable set...
		return fmt.Errorf("value for environment variable %v not found", name)
	}
}

// ReadValueFromEnvWithDefault will read the value of name from the environment into v.
// If it's not set then it will apply the supplied defaultValue and return v.
func ReadValueFromEnvWithDefault(name string, defaultValue string) (v string) {
	_ = ReadValueFromEnv(name, &v)
	if v == "" && defaultValue != "" { // if the environment variable is not set and we have been given a default value...
		v = defaultValue
	}
	return
}

// ReadIntFromEnvWithDefault reads an integer from the environment, applying defaultValue when it is unset.
// An error is returned if the variable is set but is not a valid integer.
func ReadIntFromEnvWithDefault(name string, defaultValue int) (int, error) {
	var v string
	if err := ReadValueFromEnv(name, &v); err != nil {
		return defaultValue, nil
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return defaultValue, fmt.Errorf("environment variable %v must be an integer: %w", name, err)
	}
	return i, nil
}

// GetEnvVarName converts name to upper case with dashes as underscores and adds the EnvVarPrefix.
// Example: "batch-size" => "OP_BATCH_SIZE"
func GetEnvVarName(name string) string {
	n := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), "-", "_"))
	return fmt.Sprintf("%v_%v", constants.EnvVarPrefix, n)
}

func GetDsnEnvVarName(connectionName string) string {
	n := strings.TrimSpace(strings.ToUpper(connectionName))
	return fmt.Sprintf("%v_%v_DSN", constants.EnvVarPrefix, n)
}
