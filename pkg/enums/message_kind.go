package enums

// MessageKind is derived from a message row: attaching a product turns a direct
// message into a product inquiry.
type MessageKind string

const (
	MessageKindDirect         MessageKind = "direct"
	MessageKindProductInquiry MessageKind = "product_inquiry"
)

func (k MessageKind) String() string {
	return string(k)
}
