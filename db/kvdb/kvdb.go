package kvdb

const QueriesBucket = "queries"

var buckets = []string{QueriesBucket}

type DB interface {
	Set(bucket string, key string, value string) error
	Get(bucket string, key string) (string, error)
	Delete(bucket string, key string) error
	GetAllKeys(bucket string) ([]string, error)
	Close() error
}
