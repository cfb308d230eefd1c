package stream

import "strings"

// Topic name layout shared by producers and consumers.
const (
	TickTopicPrefix    = "ticks."
	BarTopicPrefix     = "bars."
	FeatureTopicPrefix = "features."
	AlertTopicPrefix   = "alerts."

	// FeatureAllTopic carries every symbol's feature vectors in one stream.
	FeatureAllTopic = "features.all"

	// AlertCategoryWhales groups the large-trade/pattern alerts.
	AlertCategoryWhales = "whales"
)

// TickTopic names the per-exchange, per-symbol tick stream. The symbol keeps
// its exchange-native-normalized case.
func TickTopic(exchange, symbol string) string {
	return TickTopicPrefix + exchange + "." + symbol
}

// BarTopic names the sealed-bar stream for one symbol.
func BarTopic(symbol string) string {
	return BarTopicPrefix + strings.ToLower(symbol)
}

// FeatureTopic names the per-symbol feature stream.
func FeatureTopic(symbol string) string {
	return FeatureTopicPrefix + strings.ToLower(symbol)
}

// AlertTopic names the aggregate stream for one alert category.
func AlertTopic(category string) string {
	return AlertTopicPrefix + category
}

// AlertSeverityTopic names the severity-tier stream, retained independently
// of the aggregate.
func AlertSeverityTopic(category, severity string) string {
	return AlertTopicPrefix + category + "." + severity
}
