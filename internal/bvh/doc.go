// Package bvh reads and writes Biovision Hierarchy motion capture files.
//
// A file has two sections. HIERARCHY declares one ROOT joint and its nested
// JOINT and End Site blocks, each with an OFFSET and (for joints) a CHANNELS
// list. MOTION declares the frame count, the frame time and one row of
// channel values per frame, in the order the channels were declared.
//
// Parse returns an initialized skeleton.Skeleton together with a
// motion.Matrix whose columns follow the skeleton's channel layout. Write
// emits the same grammar, so parsing a written file reproduces the skeleton
// and matrix it was written from.
package bvh
