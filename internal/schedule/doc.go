// Package schedule decides which outputs should be on at a given minute and
// paces the control loop on wall-clock minute boundaries.
package schedule
