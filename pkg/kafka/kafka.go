package kafka

import (
	"time"

	"github.com/IBM/sarama"
)

type Config struct {
	Addrs         []string `envconfig:"KAFKA_ADDRS"`
	Topic         string   `envconfig:"KAFKA_TOPIC" default:"lending.borrowings"`
	ConsumerGroup string   `envconfig:"KAFKA_CONSUMER_GROUP" default:"lendingctl"`
}

func (c Config) Enabled() bool {
	return len(c.Addrs) > 0
}

func NewProducer(cfg Config) (sarama.SyncProducer, error) {
	defaultCfg := sarama.NewConfig()

	defaultCfg.Producer.RequiredAcks = sarama.WaitForAll
	defaultCfg.Producer.Return.Successes = true
	defaultCfg.Producer.Retry.Max = 2
	defaultCfg.Producer.Timeout = 3 * time.Second
	defaultCfg.Net.DialTimeout = 2 * time.Second
	// borrowing events of one book stay ordered
	defaultCfg.Producer.Partitioner = sarama.NewHashPartitioner

	return sarama.NewSyncProducer(cfg.Addrs, defaultCfg)
}
