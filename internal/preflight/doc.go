// Package preflight provides readiness checks for the local state directory,
// AWS credentials, and the pre-provisioned resources each stage depends on.
//
// The CLI "check" command runs RunAll and renders the results; "serve" runs
// it at startup and logs failures without refusing to start, because a stage
// whose prerequisites are missing is reported per delivery anyway.
//
// Each stage's remote checks are gated by its configuration: a stage without
// its required fields is reported as disabled, not failed.
package preflight
