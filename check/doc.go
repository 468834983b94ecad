// Package check contains the validation stages of the mailscout
// pipeline: syntax, DNS/MX and SMTP. Each stage produces a
// types.StageOutcome; the pipeline in the root package decides which
// stages run and how their outcomes combine.
package check
