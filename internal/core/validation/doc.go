// Package validation provides pure validation of rollout specs at the
// depths the validation capabilities expose (basic, standard, comprehensive)
// plus the compliance rule set. All functions are pure with no I/O.
package validation
