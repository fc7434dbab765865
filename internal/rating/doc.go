// Package rating holds the pure scoring math: projection of provider-native
// scales onto a common 0-10 scale, composite means over decimal arithmetic,
// and the provider precedence policy for merging overlapping sources. No
// function here performs I/O or mutates its inputs.
package rating
