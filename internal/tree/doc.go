// Package tree projects a workspace's flat task list into the nested forest
// observers render, and back into the flat reorder form.
//
// Every traversal is an explicit-stack DFS, so arbitrarily deep forests
// never grow the goroutine stack.
package tree
