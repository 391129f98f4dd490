// Package client is the Indenture Go SDK.
//
// It wraps the verifier's HTTP API: submitting transactions for
// verification, looking up stored verdicts, and inspecting the tamper-evident
// audit log.
//
// # Verifying a transaction
//
//	c, err := client.New("https://verifier.example.com")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	verdict, err := c.Verify(ctx, &client.VerifyRequest{
//	    Contract: "commercial_paper",
//	    Outputs: []client.StateRecord{{
//	        Kind:       "commercial_paper",
//	        Issuer:     issuerHex,
//	        Owner:      issuerHex,
//	        FaceValue:  &client.AmountRecord{Quantity: 10000, Unit: "USD"},
//	        MaturityAt: &maturity,
//	    }},
//	    Commands: []client.CommandRecord{{Kind: "issue", Signers: []string{issuerHex}}},
//	    Window:   &client.WindowRecord{NotAfter: &deadline},
//	})
//
// The verdict's Outcome is "accepted" or "rejected"; rejections carry a
// ViolationCode and a human-readable Reason.
//
// # Authenticated routes
//
// Webhook management and audit inspection require a session token:
//
//	token, err := c.IssueToken(ctx, adminSecret, "ops@example.com", "operator")
//	c, err = client.New(base, client.WithBearerToken(token))
package client
