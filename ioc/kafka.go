package ioc

import (
	"log"

	"github.com/IBM/sarama"
	"github.com/spf13/viper"
	"github.com/to404hanga/online_judge_duel/config"
	"github.com/to404hanga/online_judge_duel/event"
	"github.com/to404hanga/online_judge_duel/pkg/logger"
)

func InitProducer(l logger.Logger) event.Producer {
	var cfg config.KafkaConfig
	if err := viper.UnmarshalKey(cfg.Key(), &cfg); err != nil {
		log.Panicf("unmarshal kafka config failed: %v", err)
	}
	if !cfg.Enabled || len(cfg.Addrs) == 0 {
		l.Info("kafka disabled, duel result events will be dropped")
		return event.NopProducer{}
	}

	saramaCfg := sarama.NewConfig()
	saramaCfg.Producer.Return.Successes = true
	saramaCfg.Producer.RequiredAcks = sarama.WaitForAll
	saramaCfg.Producer.Partitioner = sarama.NewHashPartitioner
	producer, err := sarama.NewSyncProducer(cfg.Addrs, saramaCfg)
	if err != nil {
		log.Panicf("init kafka producer failed: %v", err)
	}
	return event.NewSaramaProducer(producer)
}
