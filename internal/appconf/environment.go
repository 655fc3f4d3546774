package appconf

import "fmt"

// Environment is the operating environment of the process.
type Environment string

const (
	Development Environment = "development"
	Test        Environment = "test"
	Production  Environment = "production"
)

// EnvFlagToEnvironment maps the -env command line value onto an Environment.
func EnvFlagToEnvironment(env string) (Environment, error) {
	switch Environment(env) {
	case Development, Test, Production:
		return Environment(env), nil
	default:
		return "", fmt.Errorf("unknown environment %q (development|test|production)", env)
	}
}
