// Package builder turns a loaded grid model into executable node specs.
//
// Each config node becomes a node.Spec whose dependencies are the union of its
// explicit `depends_on` entries and the nodes its argument expressions refer
// to (`node.<type>.<name>...`). Its computation evaluates the arguments
// against the recorded results of those dependencies, decodes them into the
// module's input struct and calls the registered handler.
package builder
