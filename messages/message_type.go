package messages

// MessageType is a wire discriminant selecting a Protocol variant.
// Values are part of the protocol and must stay stable.
type MessageType byte

const (
	// TransactionType is a raw transaction.
	TransactionType MessageType = 0x00
	// ConnectType is a peer handshake message.
	ConnectType MessageType = 0x01
	// StatusType is a node status broadcast.
	StatusType MessageType = 0x02
	// 0x03 is reserved: it carried a transitional alternate Status
	// encoding which was retired after the codec migration.

	// BlockResponseType is a reply to BlockRequest.
	BlockResponseType MessageType = 0x04
	// TransactionsResponseType is a batch of transactions sent in reply
	// to TransactionsRequest.
	TransactionsResponseType MessageType = 0x05

	// ProposeType is a block proposal.
	ProposeType MessageType = 0x10
	// PrevoteType is a pre-vote for a proposal.
	PrevoteType MessageType = 0x11
	// PrecommitType is a pre-commit for a proposal.
	PrecommitType MessageType = 0x12

	// ProposeRequestType requests a Propose by hash.
	ProposeRequestType MessageType = 0x20
	// TransactionsRequestType requests transactions by hash.
	TransactionsRequestType MessageType = 0x21
	// PrevotesRequestType requests missing pre-votes.
	PrevotesRequestType MessageType = 0x22
	// PeersRequestType requests connected peers.
	PeersRequestType MessageType = 0x23
	// BlockRequestType requests a committed block by height.
	BlockRequestType MessageType = 0x24
)

// String implements fmt.Stringer interface.
func (m MessageType) String() string {
	switch m {
	case TransactionType:
		return "Transaction"
	case ConnectType:
		return "Connect"
	case StatusType:
		return "Status"
	case BlockResponseType:
		return "BlockResponse"
	case TransactionsResponseType:
		return "TransactionsResponse"
	case ProposeType:
		return "Propose"
	case PrevoteType:
		return "Prevote"
	case PrecommitType:
		return "Precommit"
	case ProposeRequestType:
		return "ProposeRequest"
	case TransactionsRequestType:
		return "TransactionsRequest"
	case PrevotesRequestType:
		return "PrevotesRequest"
	case PeersRequestType:
		return "PeersRequest"
	case BlockRequestType:
		return "BlockRequest"
	default:
		panic("unknown type")
	}
}
