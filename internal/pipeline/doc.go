// Package pipeline runs clip extraction for one capture file: parse the BVH,
// look up its frame cuts, validate and slice them, then write the clip files,
// the skeleton documents and the clip manifest into a per-capture directory,
// recording the run in the catalog when one is attached.
//
// A run either writes every clip or none of them: all ranges, names and
// overwrite conflicts are checked before the first file is written.
package pipeline
