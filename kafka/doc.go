// Package kafka holds the broker configuration, connection helpers and
// lifecycle component for publishing usage events with segmentio/kafka-go.
// The writer itself lives in kafka/producer.
//
//	kafka:
//	  enabled: true
//	  brokers: ["localhost:9092"]
//	  topic: "endpoints.usage"
package kafka
