package payments

import "github.com/google/uuid"

// Namespace of the idempotency keys sent to the gateway. Changing it breaks retries of in flight orders
var IdempotencyNamespace = uuid.MustParse("5b1f2e0c-7a8d-4c39-9e61-2f4d8b0a6c17")

// IdempotencyKey derives the gateway idempotency key from the order identity.
// Every charge attempt for the same order carries the same key
func IdempotencyKey(orderId uuid.UUID) (key string) {
	return uuid.NewSHA1(IdempotencyNamespace, orderId[:]).String()
}
