// Package config handles YAML configuration loading with environment
// variable substitution and env-only fallbacks for bare deployments.
//
// Configuration files support ${VAR} syntax for environment variable
// interpolation. Every hub tunable (admissibility predicate, queue
// depth, overflow policy, broadcast privilege, connection cap) is
// settable here.
package config
