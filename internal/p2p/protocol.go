package p2p

// TopicTransactions carries JSON-encoded transactions.
const TopicTransactions = "/neblio/tx/1.0.0"

// MaxMessageSize bounds a gossiped message.
const MaxMessageSize = 1 << 20

// rendezvousPrefix namespaces DHT and mDNS discovery.
const rendezvousPrefix = "neblio/"
