package types

// Version is the canonical project version.
// The CLI, the status document schema, and the manifest schema share this
// version; bump it whenever any persisted shape changes.
const Version = "0.2.0"
