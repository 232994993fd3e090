package billing

// stripe payloads are small; anything larger is rejected before verification
const maxWebhookBytes = 64 << 10

const signatureHeader = "Stripe-Signature"
