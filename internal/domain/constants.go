package domain

// Payment record lifecycle. PROCESSING is only ever shown to the browser.
const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

// Statuses reported by Monnify for a transaction.
const (
	GatewayStatusPaid      = "PAID"
	GatewayStatusPending   = "PENDING"
	GatewayStatusFailed    = "FAILED"
	GatewayStatusCancelled = "CANCELLED"
)

// Webhook event types sent by Monnify.
const (
	EventSuccessfulTransaction = "SUCCESSFUL_TRANSACTION"
	EventFailedTransaction     = "FAILED_TRANSACTION"
)

// Callback page states.
const (
	CallbackSuccess    = "success"
	CallbackFail       = "fail"
	CallbackProcessing = "processing"
)

const PaymentMethodMonnify = "monnify"

const DefaultCurrency = "NGN"

// HookKind names a business side effect run on a terminal payment transition.
// Only kinds registered with the hook dispatcher at startup are ever invoked.
type HookKind string

const (
	HookNone           HookKind = ""
	HookFulfilOrder    HookKind = "fulfil_order"
	HookRefundWallet   HookKind = "refund_wallet"
	HookNotifyCustomer HookKind = "notify_customer"
)

var knownHooks = map[HookKind]struct{}{
	HookFulfilOrder:    {},
	HookRefundWallet:   {},
	HookNotifyCustomer: {},
}

// Valid reports whether k is empty or one of the known hook kinds.
func (k HookKind) Valid() bool {
	if k == HookNone {
		return true
	}
	_, ok := knownHooks[k]
	return ok
}

// Setting keys for the gateway configuration stored in system_settings.
const (
	SettingMonnifyMode         = "monnify.mode"
	SettingMonnifyAPIKey       = "monnify.%s.api_key"
	SettingMonnifySecretKey    = "monnify.%s.secret_key"
	SettingMonnifyContractCode = "monnify.%s.contract_code"
)
