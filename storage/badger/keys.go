package badger

import "fmt"

// Key prefixes for different data types
const (
	registryRecordPrefix = "regrec"
	cacheEntryPrefix     = "cachent"
)

// makeRecordKey generates a key for a registry record by business key.
func makeRecordKey(businessKey string) []byte {
	return []byte(fmt.Sprintf("%s:%s", registryRecordPrefix, businessKey))
}

// makeCacheKey generates a key for a cache entry, namespaced away from
// registry records so the two stores can share one database.
func makeCacheKey(key string) []byte {
	return []byte(fmt.Sprintf("%s:%s", cacheEntryPrefix, key))
}
