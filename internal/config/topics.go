package config

const (
	// TopicLibraryIngest carries library item ids awaiting extraction and embedding.
	TopicLibraryIngest = "library.ingest"

	// ChannelLibraryWorker is the NSQ channel shared by all ingest workers.
	ChannelLibraryWorker = "library-worker"
)
