// Package importers turns exchange documents into stored links.
//
// # Architecture
//
// The import pipeline follows a simple flow:
//
//	Source bytes → formats.Decoder → Record → Candidate → transaction → Link Store
//
// Decoding never touches the store. Candidates are normalized, validated and
// checked for duplicates against the target profile (and the batch itself)
// before anything is written. The commit runs inside one storage transaction:
// either every accepted candidate is stored with its tags, or nothing is.
//
// # Selection flow
//
// Callers that let a user toggle individual rows use Preview and Commit:
//
//	preview, err := pipeline.Preview(ctx, file, profileID, formats.FormatHTML)
//	preview.Candidates[2].Selected = false
//	outcome, err := pipeline.Commit(ctx, preview, profileID, importers.Options{})
//
// Import runs both steps with every candidate selected.
package importers
