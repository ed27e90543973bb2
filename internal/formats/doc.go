// Package formats translates between stored links and the exchange formats
// deepr reads and writes.
//
// Each codec implements the direction it needs:
//
//	Format         Decode  Encode
//	csv            yes     yes
//	html           yes     yes    (Netscape bookmark file, DOM walk decode)
//	html-firefox   yes     yes    (tokenizer decode with folder stack)
//	json           yes     yes    (backup envelope)
//	text           yes     no
//	markdown       yes     yes    (sync table)
//
// Codecs are resolved from a Format at the pipeline boundary:
//
//	dec, err := formats.DecoderFor(formats.FormatCSV)
//	decoded, err := dec.Decode(data)
//
// Decoders never fail on a single bad row. Rows that cannot be used are
// counted in Decoded.Skipped and the rest of the document is returned.
package formats
