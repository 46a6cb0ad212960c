// Package lora maintains the model of LoRA files available to the plugin.
//
// It scans a directory tree for model files, merges per-file metadata
// (trigger words, strength) from a persistent store, and exposes the
// filtering and grouping rules the plugin's LoRA list is built from:
// an optional folder filter, a substring search, files directly under the
// active folder at the root, and deeper files grouped by their first path
// segment. Widget construction on top of this model is out of scope.
package lora
