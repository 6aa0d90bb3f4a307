package domain

// KeyPrefix namespaces every key the engine writes to a shared KV store.
const KeyPrefix = "lexsearch:"
