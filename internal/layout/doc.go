// Package layout models the saved description of a workflow canvas: placed
// node instances and the connections between them.
//
// The on-disk format is the JSON written by the editor. Loading accepts
// legacy key spellings (source_node_key/target_node_key, and node type
// references split into category+function); saving always emits the modern
// keys, so loading and re-saving a legacy file upgrades it in place.
package layout
