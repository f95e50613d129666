package testsuite

import "github.com/RogueTeam/cardpay/gateways/mock"

type MockGenerator struct {
}

func (g *MockGenerator) ApprovedToken() (token string) { return mock.NonceApproved }
func (g *MockGenerator) DeclinedToken() (token string) { return mock.NonceDeclined }
func (g *MockGenerator) LocationId() (id string)       { return "mock-location" }

// SquareGenerator uses the nonces accepted by the Square sandbox
type SquareGenerator struct {
	Location string
}

func (g *SquareGenerator) ApprovedToken() (token string) { return "cnon:card-nonce-ok" }
func (g *SquareGenerator) DeclinedToken() (token string) { return "cnon:card-nonce-declined" }
func (g *SquareGenerator) LocationId() (id string)       { return g.Location }
