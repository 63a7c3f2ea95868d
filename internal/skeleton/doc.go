// Package skeleton models a skeletal hierarchy as a flat arena of joints.
//
// Joints live in declaration order and refer to their parent by index. The
// constructors reject any array that is not a tree rooted at joint 0 whose
// parents are declared before their children, so ancestor walks never need
// cycle detection. The order is significant: channel columns in motion data
// are laid out joint by joint in this order.
//
// A Skeleton has no exported mutators. Derived hierarchy state (children,
// depth, end effectors) is produced by Init and swapped in atomically, which
// lets many clips share one Skeleton for reading while Init stays
// idempotent. Hierarchy queries fail with mocaperr.ErrNotInitialized until
// Init has run.
package skeleton
