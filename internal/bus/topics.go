package bus

import "github.com/groblegark/agora/internal/ledger"

// Event topic constants. External consumers may subscribe to "agora.>" on
// NATS to observe everything the bridge forwards.
const (
	TopicUserCreated = "agora.users.created"
	TopicUserUpdated = "agora.users.updated"
	TopicUserDeleted = "agora.users.deleted"

	TopicOrganizationCreated = "agora.organizations.created"
	TopicOrganizationUpdated = "agora.organizations.updated"
	TopicOrganizationDeleted = "agora.organizations.deleted"

	TopicMembershipCreated = "agora.memberships.created"
	TopicMembershipUpdated = "agora.memberships.updated"
	TopicMembershipDeleted = "agora.memberships.deleted"

	TopicRequestCreated = "agora.requests.created"
	TopicRequestUpdated = "agora.requests.updated"
	TopicRequestDeleted = "agora.requests.deleted"

	TopicOfferCreated = "agora.offers.created"
	TopicOfferUpdated = "agora.offers.updated"
	TopicOfferDeleted = "agora.offers.deleted"

	TopicServiceTypeCreated = "agora.service_types.created"
	TopicServiceTypeUpdated = "agora.service_types.updated"
	TopicServiceTypeDeleted = "agora.service_types.deleted"

	TopicMediumOfExchangeCreated = "agora.mediums_of_exchange.created"
	TopicMediumOfExchangeUpdated = "agora.mediums_of_exchange.updated"
	TopicMediumOfExchangeDeleted = "agora.mediums_of_exchange.deleted"

	// Status lifecycle events (emitted by the administration service).
	TopicStatusChanged = "agora.administration.status_changed"
)

// AllTopics enumerates every topic the market emits, for bridge forwarding.
var AllTopics = []string{
	TopicUserCreated, TopicUserUpdated, TopicUserDeleted,
	TopicOrganizationCreated, TopicOrganizationUpdated, TopicOrganizationDeleted,
	TopicMembershipCreated, TopicMembershipUpdated, TopicMembershipDeleted,
	TopicRequestCreated, TopicRequestUpdated, TopicRequestDeleted,
	TopicOfferCreated, TopicOfferUpdated, TopicOfferDeleted,
	TopicServiceTypeCreated, TopicServiceTypeUpdated, TopicServiceTypeDeleted,
	TopicMediumOfExchangeCreated, TopicMediumOfExchangeUpdated, TopicMediumOfExchangeDeleted,
	TopicStatusChanged,
}

// Actions for Topic.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// Topic builds the subject for one domain and action, e.g.
// Topic("requests", ActionCreated) == TopicRequestCreated.
func Topic(domain, action string) string {
	return "agora." + domain + "." + action
}

// Event payload types.

type EntityCreated struct {
	Entity any `json:"entity"`
}

type EntityUpdated struct {
	Entity any `json:"entity"`
}

type EntityDeleted struct {
	ID ledger.Ref `json:"id"`
}

type StatusChanged struct {
	Subject  ledger.Ref `json:"subject"`
	Previous string     `json:"previous"`
	Current  string     `json:"current"`
}
