package config

const (
	// TopicUploadNotify is the NSQ topic carrying upload notifications
	// from the gateway to the ingestion consumer.
	TopicUploadNotify = "ingest.upload"

	// ChannelProcessor is the consumer channel name. All processor
	// instances share it, so NSQ load-balances deliveries across them.
	ChannelProcessor = "processor"
)
