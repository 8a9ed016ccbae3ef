// Package turn composes one complete conversation turn: serialize per
// user, aggregate context, render the instruction, run the model, and
// assemble the reply.
//
// Invariants:
// - Instruction placeholders are substituted literally and in order;
//   braces outside the recognized set pass through untouched.
// - The chart artifact is first-wins per turn, final text is last-wins.
// - Any failure inside a turn degrades to a fixed error payload; nothing
//   here is process-fatal.
package turn
