package gossipcast

// PayloadKind tags which of the three payload variants an envelope carries.
// It is the Go stand-in for the tagged union the original Rust source
// expresses with an enum; dispatch is a first-match fan-in, never
// inheritance (spec design note §9).
type PayloadKind string

const (
	KindPublicPoi     PayloadKind = "public_poi"
	KindUpgradeIntent PayloadKind = "upgrade_intent"
	KindSimpleTest    PayloadKind = "simple_test"
)

// Payload is implemented by every inner message type the decoder fan-in can
// produce. Kind lets callers (store, query API) report which variant
// matched without a type switch at every call site.
type Payload interface {
	Kind() PayloadKind
}

// PublicPoi is a proof-of-indexing gossip message: a content hash for a
// given subgraph deployment at a given block.
type PublicPoi struct {
	Identifier   string `json:"identifier"`
	Content      string `json:"content"`
	Nonce        uint64 `json:"nonce"`
	Network      string `json:"network"`
	BlockNumber  uint64 `json:"block_number"`
	BlockHash    string `json:"block_hash"`
	GraphAccount string `json:"graph_account"`
}

func (PublicPoi) Kind() PayloadKind { return KindPublicPoi }

// UpgradeIntent announces that an indexer intends to upgrade a subgraph
// deployment to a new build hash.
type UpgradeIntent struct {
	Deployment   string `json:"deployment"`
	SubgraphID   string `json:"subgraph_id"`
	NewHash      string `json:"new_hash"`
	Nonce        uint64 `json:"nonce"`
	GraphAccount string `json:"graph_account"`
}

func (UpgradeIntent) Kind() PayloadKind { return KindUpgradeIntent }

// SimpleTest is a minimal liveness/connectivity payload; its identifier is
// the only field cross-validated against the envelope.
type SimpleTest struct {
	Identifier string `json:"identifier"`
	Content    string `json:"content"`
}

func (SimpleTest) Kind() PayloadKind { return KindSimpleTest }
