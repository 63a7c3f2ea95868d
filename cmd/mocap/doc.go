// Command mocap inspects BVH motion captures, cuts them into per-style clips
// using a frame-cut table, migrates legacy skeleton data and lists the clip
// catalog.
package main
