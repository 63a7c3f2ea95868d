// Package mocaperr defines the error taxonomy shared by the skeleton, BVH,
// frame-cut and clip packages.
//
// Every failure the pipeline can surface carries one of the exported sentinel
// markers so callers can classify it with errors.Is regardless of which
// package produced it. The typed errors add the structured detail (joint
// index, line number, frame range) that the CLI prints and the logger records.
//
// None of these errors is recovered from inside the pipeline: a partially
// valid skeleton, a partially parsed file or a partially sliced clip set is
// never returned alongside them.
package mocaperr
