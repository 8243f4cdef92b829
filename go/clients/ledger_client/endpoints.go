package ledger_client

const (
	// Namespace under which the bridge registers its methods
	Namespace = "hotpotato"

	// JSON-RPC methods
	MethodGetRoot         = Namespace + "_getRoot"
	MethodSend            = Namespace + "_send"
	MethodAddressIsMapped = Namespace + "_addressIsMapped"

	// Headers
	APIKeyHeader = "X-Api-Key"
)
