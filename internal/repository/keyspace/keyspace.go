// Package keyspace builds the storage key layout shared by repositories.
//
//	{prefix}collection:{name}      collection metadata hash
//	{prefix}{name}:ids             set of document ids
//	{prefix}{name}:doc:{id}        document hash
//	{prefix}cache:{key}            cached search response
package keyspace

// DefaultPrefix is used when no prefix is configured.
const DefaultPrefix = "geodecay:"

// Keyspace derives keys under a common prefix.
type Keyspace struct {
	prefix string
}

// New creates a Keyspace; an empty prefix selects DefaultPrefix.
func New(prefix string) Keyspace {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Keyspace{prefix: prefix}
}

// Prefix returns the configured prefix.
func (k Keyspace) Prefix() string { return k.prefix }

// Collection returns the metadata key of a collection.
func (k Keyspace) Collection(name string) string {
	return k.prefix + "collection:" + name
}

// Collections returns the SCAN pattern matching every collection metadata key.
func (k Keyspace) Collections() string {
	return k.prefix + "collection:*"
}

// IDs returns the id set key of a collection.
func (k Keyspace) IDs(collection string) string {
	return k.prefix + collection + ":ids"
}

// Document returns the hash key of a document.
func (k Keyspace) Document(collection, id string) string {
	return k.prefix + collection + ":doc:" + id
}

// Cache returns the key of a cached search response.
func (k Keyspace) Cache(key string) string {
	return k.prefix + "cache:" + key
}
