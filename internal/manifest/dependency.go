package manifest

import (
	"encoding/json"
	"fmt"
)

// DependencyType enumerates the recognized managed infrastructure kinds.
type DependencyType string

const (
	DependencyDatabase DependencyType = "database"
	DependencyQueue    DependencyType = "queue"
	DependencyCache    DependencyType = "cache"
	DependencyStream   DependencyType = "event-stream"
)

// KnownDependencyTypes lists every recognized dependency type.
var KnownDependencyTypes = []DependencyType{
	DependencyDatabase,
	DependencyQueue,
	DependencyCache,
	DependencyStream,
}

// Dependency is a tagged union over the recognized dependency kinds.
// Exactly one spec variant is non-nil after unmarshaling, chosen by Type.
type Dependency struct {
	Type DependencyType

	Database *DatabaseSpec
	Queue    *QueueSpec
	Cache    *CacheSpec
	Stream   *StreamSpec
}

// DatabaseSpec configures a managed relational database.
type DatabaseSpec struct {
	Provider      string `json:"provider,omitempty"`
	Version       string `json:"version,omitempty"`
	InstanceClass string `json:"instance_class,omitempty"`
	StorageGB     int    `json:"storage,omitempty" validate:"gte=0"`
}

// QueueSpec configures a managed message broker.
type QueueSpec struct {
	Provider      string `json:"provider,omitempty"`
	Version       string `json:"version,omitempty"`
	InstanceClass string `json:"instance_class,omitempty"`
}

// CacheSpec configures a managed in-memory cache.
type CacheSpec struct {
	NodeType    string `json:"node_type,omitempty"`
	Version     string `json:"version,omitempty"`
	ClusterSize int    `json:"cluster_size,omitempty" validate:"gte=0"`
	AuthEnabled *bool  `json:"auth_enabled,omitempty"`
	MultiAZ     bool   `json:"multi_az,omitempty"`
}

// StreamSpec configures a managed event stream.
type StreamSpec struct {
	Version     string `json:"version,omitempty"`
	BrokerCount int    `json:"broker_count,omitempty" validate:"gte=0"`
	BrokerType  string `json:"broker_type,omitempty"`
	VolumeGB    int    `json:"volume_size,omitempty" validate:"gte=0"`
}

// Per-provider defaults, pinned explicitly so manifests stay reproducible
// when upstream defaults move.
const (
	DefaultDatabaseProvider = "postgres"
	DefaultDatabaseVersion  = "13"
	DefaultDatabaseClass    = "db.t3.small"
	DefaultDatabaseStorage  = 20

	DefaultQueueProvider = "RabbitMQ"
	DefaultQueueVersion  = "3.13"
	DefaultQueueClass    = "mq.t3.micro"

	DefaultCacheNodeType = "cache.t3.micro"
	DefaultCacheVersion  = "6.2"
	DefaultCacheSize     = 1

	DefaultStreamVersion     = "3.6.0"
	DefaultStreamBrokerCount = 2
	DefaultStreamBrokerType  = "kafka.t3.small"
	DefaultStreamVolumeGB    = 100
)

// UnmarshalJSON dispatches on the "type" discriminator. Unknown types are
// rejected here, at validation time, never deferred to provisioning.
func (d *Dependency) UnmarshalJSON(data []byte) error {
	var head struct {
		Type DependencyType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}

	d.Type = head.Type

	switch head.Type {
	case DependencyDatabase:
		d.Database = &DatabaseSpec{}
		return json.Unmarshal(data, d.Database)
	case DependencyQueue:
		d.Queue = &QueueSpec{}
		return json.Unmarshal(data, d.Queue)
	case DependencyCache:
		d.Cache = &CacheSpec{}
		return json.Unmarshal(data, d.Cache)
	case DependencyStream:
		d.Stream = &StreamSpec{}
		return json.Unmarshal(data, d.Stream)
	case "":
		return fmt.Errorf("dependency is missing a type")
	default:
		return fmt.Errorf("unknown dependency type %q", head.Type)
	}
}

// MarshalJSON writes the active spec variant with its type discriminator.
func (d Dependency) MarshalJSON() ([]byte, error) {
	encode := func(spec any) ([]byte, error) {
		body, err := json.Marshal(spec)
		if err != nil {
			return nil, err
		}
		head := []byte(fmt.Sprintf(`{"type":%q`, d.Type))
		if string(body) == "{}" {
			return append(head, '}'), nil
		}
		head = append(head, ',')
		return append(head, body[1:]...), nil
	}

	switch d.Type {
	case DependencyDatabase:
		return encode(d.Database)
	case DependencyQueue:
		return encode(d.Queue)
	case DependencyCache:
		return encode(d.Cache)
	case DependencyStream:
		return encode(d.Stream)
	default:
		return nil, fmt.Errorf("unknown dependency type %q", d.Type)
	}
}

func (d *Dependency) applyDefaults() {
	switch d.Type {
	case DependencyDatabase:
		if d.Database == nil {
			d.Database = &DatabaseSpec{}
		}
		if d.Database.Provider == "" {
			d.Database.Provider = DefaultDatabaseProvider
		}
		if d.Database.Version == "" {
			d.Database.Version = DefaultDatabaseVersion
		}
		if d.Database.InstanceClass == "" {
			d.Database.InstanceClass = DefaultDatabaseClass
		}
		if d.Database.StorageGB == 0 {
			d.Database.StorageGB = DefaultDatabaseStorage
		}
	case DependencyQueue:
		if d.Queue == nil {
			d.Queue = &QueueSpec{}
		}
		if d.Queue.Provider == "" {
			d.Queue.Provider = DefaultQueueProvider
		}
		if d.Queue.Version == "" {
			d.Queue.Version = DefaultQueueVersion
		}
		if d.Queue.InstanceClass == "" {
			d.Queue.InstanceClass = DefaultQueueClass
		}
	case DependencyCache:
		if d.Cache == nil {
			d.Cache = &CacheSpec{}
		}
		if d.Cache.NodeType == "" {
			d.Cache.NodeType = DefaultCacheNodeType
		}
		if d.Cache.Version == "" {
			d.Cache.Version = DefaultCacheVersion
		}
		if d.Cache.ClusterSize == 0 {
			d.Cache.ClusterSize = DefaultCacheSize
		}
		if d.Cache.AuthEnabled == nil {
			enabled := true
			d.Cache.AuthEnabled = &enabled
		}
	case DependencyStream:
		if d.Stream == nil {
			d.Stream = &StreamSpec{}
		}
		if d.Stream.Version == "" {
			d.Stream.Version = DefaultStreamVersion
		}
		if d.Stream.BrokerCount == 0 {
			d.Stream.BrokerCount = DefaultStreamBrokerCount
		}
		if d.Stream.BrokerType == "" {
			d.Stream.BrokerType = DefaultStreamBrokerType
		}
		if d.Stream.VolumeGB == 0 {
			d.Stream.VolumeGB = DefaultStreamVolumeGB
		}
	}
}

// ExpectedOutputs lists the provisioning output names a dependency of this
// type advertises. Placeholder validation and post-provision verification
// both consult this list.
func (d *Dependency) ExpectedOutputs() []string {
	switch d.Type {
	case DependencyDatabase:
		return []string{"DATABASE_ENDPOINT", "DATABASE_NAME", "DATABASE_USERNAME", "DATABASE_PASSWORD"}
	case DependencyQueue:
		return []string{"MQ_ENDPOINT", "MQ_USERNAME", "MQ_PASSWORD"}
	case DependencyCache:
		return []string{"REDIS_PRIMARY_ENDPOINT", "REDIS_PORT", "CACHE_ENDPOINT"}
	case DependencyStream:
		return []string{"KAFKA_BROKERS"}
	default:
		return nil
	}
}
