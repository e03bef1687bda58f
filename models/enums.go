package models

import (
	"errors"
	"fmt"
	"io"
	"strconv"
)

/* factory pricing */

type OverageType string

const (
	OverageTypeByLine  OverageType = "BY_LINE"
	OverageTypeByTotal OverageType = "BY_TOTAL"
)

// convert enum to send response
func (t OverageType) MarshalGQL(w io.Writer) {
	w.Write([]byte(strconv.Quote(string(t))))
}

// convert input to enum type
func (t *OverageType) UnmarshalGQL(i interface{}) error {
	str, ok := i.(string)
	if !ok {
		return errors.New("overage type must be string")
	}
	switch str {
	case "BY_LINE":
		*t = OverageTypeByLine
	case "BY_TOTAL":
		*t = OverageTypeByTotal
	default:
		return errors.New("invalid overage type")
	}
	return nil
}

func (t OverageType) IsValid() bool {
	return t == OverageTypeByLine || t == OverageTypeByTotal
}

/* order lifecycle */

type OrderStatus string

const (
	OrderStatusOpen      OrderStatus = "Open"
	OrderStatusClosed    OrderStatus = "Closed"
	OrderStatusCancelled OrderStatus = "Cancelled"
)

func (t OrderStatus) MarshalGQL(w io.Writer) {
	w.Write([]byte(strconv.Quote(string(t))))
}

func (t *OrderStatus) UnmarshalGQL(i interface{}) error {
	str, ok := i.(string)
	if !ok {
		return errors.New("order status must be string")
	}
	switch str {
	case "Open":
		*t = OrderStatusOpen
	case "Closed":
		*t = OrderStatusClosed
	case "Cancelled":
		*t = OrderStatusCancelled
	default:
		return errors.New("invalid order status")
	}
	return nil
}

// OrderHeaderStatus reflects fulfillment progress on the sales order header.
type OrderHeaderStatus string

const (
	OrderHeaderStatusNone             OrderHeaderStatus = "None"
	OrderHeaderStatusPartiallyShipped OrderHeaderStatus = "PartiallyShipped"
	OrderHeaderStatusShipped          OrderHeaderStatus = "Shipped"
	OrderHeaderStatusInvoiced         OrderHeaderStatus = "Invoiced"
)

func (t OrderHeaderStatus) MarshalGQL(w io.Writer) {
	w.Write([]byte(strconv.Quote(string(t))))
}

func (t *OrderHeaderStatus) UnmarshalGQL(i interface{}) error {
	str, ok := i.(string)
	if !ok {
		return errors.New("order header status must be string")
	}
	switch str {
	case "None", "PartiallyShipped", "Shipped", "Invoiced":
		*t = OrderHeaderStatus(str)
	default:
		return errors.New("invalid order header status")
	}
	return nil
}

type OrderType string

const (
	OrderTypeStandard OrderType = "Standard"
	OrderTypeSample   OrderType = "Sample"
	OrderTypeBlanket  OrderType = "Blanket"
)

func (t OrderType) MarshalGQL(w io.Writer) {
	w.Write([]byte(strconv.Quote(string(t))))
}

func (t *OrderType) UnmarshalGQL(i interface{}) error {
	str, ok := i.(string)
	if !ok {
		return errors.New("order type must be string")
	}
	switch str {
	case "Standard", "Sample", "Blanket":
		*t = OrderType(str)
	default:
		return errors.New("invalid order type")
	}
	return nil
}

/* commission settlement */

type CheckStatus string

const (
	CheckStatusOpen   CheckStatus = "Open"
	CheckStatusPosted CheckStatus = "Posted"
	CheckStatusVoid   CheckStatus = "Void"
)

func (t CheckStatus) MarshalGQL(w io.Writer) {
	w.Write([]byte(strconv.Quote(string(t))))
}

func (t *CheckStatus) UnmarshalGQL(i interface{}) error {
	str, ok := i.(string)
	if !ok {
		return errors.New("check status must be string")
	}
	switch str {
	case "Open", "Posted", "Void":
		*t = CheckStatus(str)
	default:
		return errors.New("invalid check status")
	}
	return nil
}

type CheckCreationType string

const (
	CheckCreationTypeManual   CheckCreationType = "Manual"
	CheckCreationTypeImported CheckCreationType = "Imported"
)

func (t CheckCreationType) MarshalGQL(w io.Writer) {
	w.Write([]byte(strconv.Quote(string(t))))
}

func (t *CheckCreationType) UnmarshalGQL(i interface{}) error {
	str, ok := i.(string)
	if !ok {
		return errors.New("check creation type must be string")
	}
	switch str {
	case "Manual", "Imported":
		*t = CheckCreationType(str)
	default:
		return errors.New("invalid check creation type")
	}
	return nil
}

// StatementEntityType tags which document a check detail was applied to.
type StatementEntityType string

const (
	StatementEntityTypeInvoice    StatementEntityType = "Invoice"
	StatementEntityTypeCredit     StatementEntityType = "Credit"
	StatementEntityTypeAdjustment StatementEntityType = "Adjustment"
)

func (t StatementEntityType) MarshalGQL(w io.Writer) {
	w.Write([]byte(strconv.Quote(string(t))))
}

func (t *StatementEntityType) UnmarshalGQL(i interface{}) error {
	str, ok := i.(string)
	if !ok {
		return errors.New("statement entity type must be string")
	}
	switch str {
	case "Invoice", "Credit", "Adjustment":
		*t = StatementEntityType(str)
	default:
		return errors.New("invalid statement entity type")
	}
	return nil
}

/* fulfillment */

type FulfillmentStatus string

const (
	FulfillmentStatusPending         FulfillmentStatus = "Pending"
	FulfillmentStatusReleased        FulfillmentStatus = "Released"
	FulfillmentStatusPicking         FulfillmentStatus = "Picking"
	FulfillmentStatusPacking         FulfillmentStatus = "Packing"
	FulfillmentStatusShipping        FulfillmentStatus = "Shipping"
	FulfillmentStatusShipped         FulfillmentStatus = "Shipped"
	FulfillmentStatusCommunicated    FulfillmentStatus = "Communicated"
	FulfillmentStatusDelivered       FulfillmentStatus = "Delivered"
	FulfillmentStatusCancelled       FulfillmentStatus = "Cancelled"
	FulfillmentStatusBackorderReview FulfillmentStatus = "BackorderReview"
)

func (t FulfillmentStatus) MarshalGQL(w io.Writer) {
	w.Write([]byte(strconv.Quote(string(t))))
}

func (t *FulfillmentStatus) UnmarshalGQL(i interface{}) error {
	str, ok := i.(string)
	if !ok {
		return errors.New("fulfillment status must be string")
	}
	switch str {
	case "Pending", "Released", "Picking", "Packing", "Shipping",
		"Shipped", "Communicated", "Delivered", "Cancelled", "BackorderReview":
		*t = FulfillmentStatus(str)
	default:
		return fmt.Errorf("invalid fulfillment status %q", str)
	}
	return nil
}

type FulfillmentActivityType string

const (
	FulfillmentActivityTypeCreated           FulfillmentActivityType = "Created"
	FulfillmentActivityTypeReleased          FulfillmentActivityType = "Released"
	FulfillmentActivityTypePickStarted       FulfillmentActivityType = "PickStarted"
	FulfillmentActivityTypePickCompleted     FulfillmentActivityType = "PickCompleted"
	FulfillmentActivityTypePackCompleted     FulfillmentActivityType = "PackCompleted"
	FulfillmentActivityTypeShipped           FulfillmentActivityType = "Shipped"
	FulfillmentActivityTypeCommunicated      FulfillmentActivityType = "Communicated"
	FulfillmentActivityTypeDelivered         FulfillmentActivityType = "Delivered"
	FulfillmentActivityTypeCancelled         FulfillmentActivityType = "Cancelled"
	FulfillmentActivityTypeSignatureCaptured FulfillmentActivityType = "SignatureCaptured"
	FulfillmentActivityTypeBackorderReported FulfillmentActivityType = "BackorderReported"
	FulfillmentActivityTypeNoteAdded         FulfillmentActivityType = "NoteAdded"
	FulfillmentActivityTypeAssignmentAdded   FulfillmentActivityType = "AssignmentAdded"
	FulfillmentActivityTypeAssignmentRemoved FulfillmentActivityType = "AssignmentRemoved"
)

func (t FulfillmentActivityType) MarshalGQL(w io.Writer) {
	w.Write([]byte(strconv.Quote(string(t))))
}

func (t *FulfillmentActivityType) UnmarshalGQL(i interface{}) error {
	str, ok := i.(string)
	if !ok {
		return errors.New("fulfillment activity type must be string")
	}
	switch str {
	case "Created", "Released", "PickStarted", "PickCompleted", "PackCompleted",
		"Shipped", "Communicated", "Delivered", "Cancelled", "SignatureCaptured",
		"BackorderReported", "NoteAdded", "AssignmentAdded", "AssignmentRemoved":
		*t = FulfillmentActivityType(str)
	default:
		return fmt.Errorf("invalid fulfillment activity type %q", str)
	}
	return nil
}

type FulfillmentRole string

const (
	FulfillmentRoleManager FulfillmentRole = "Manager"
	FulfillmentRoleWorker  FulfillmentRole = "Worker"
)

func (t FulfillmentRole) MarshalGQL(w io.Writer) {
	w.Write([]byte(strconv.Quote(string(t))))
}

func (t *FulfillmentRole) UnmarshalGQL(i interface{}) error {
	str, ok := i.(string)
	if !ok {
		return errors.New("fulfillment role must be string")
	}
	switch str {
	case "Manager", "Worker":
		*t = FulfillmentRole(str)
	default:
		return errors.New("invalid fulfillment role")
	}
	return nil
}

type ManufacturerFulfillmentStatus string

const (
	ManufacturerFulfillmentStatusNone                  ManufacturerFulfillmentStatus = "None"
	ManufacturerFulfillmentStatusPendingManufacturer   ManufacturerFulfillmentStatus = "PendingManufacturer"
	ManufacturerFulfillmentStatusShippedByManufacturer ManufacturerFulfillmentStatus = "ShippedByManufacturer"
)

func (t ManufacturerFulfillmentStatus) MarshalGQL(w io.Writer) {
	w.Write([]byte(strconv.Quote(string(t))))
}

func (t *ManufacturerFulfillmentStatus) UnmarshalGQL(i interface{}) error {
	str, ok := i.(string)
	if !ok {
		return errors.New("manufacturer fulfillment status must be string")
	}
	switch str {
	case "None", "PendingManufacturer", "ShippedByManufacturer":
		*t = ManufacturerFulfillmentStatus(str)
	default:
		return errors.New("invalid manufacturer fulfillment status")
	}
	return nil
}

/* RBAC */

type RbacOption string

const (
	RbacOptionNone RbacOption = "None"
	RbacOptionOwn  RbacOption = "Own"
	RbacOptionAll  RbacOption = "All"
)

// rank orders options by breadth; the engine picks the highest across roles.
func (t RbacOption) rank() int {
	switch t {
	case RbacOptionAll:
		return 2
	case RbacOptionOwn:
		return 1
	}
	return 0
}

func (t RbacOption) MarshalGQL(w io.Writer) {
	w.Write([]byte(strconv.Quote(string(t))))
}

func (t *RbacOption) UnmarshalGQL(i interface{}) error {
	str, ok := i.(string)
	if !ok {
		return errors.New("rbac option must be string")
	}
	switch str {
	case "None", "Own", "All":
		*t = RbacOption(str)
	default:
		return errors.New("invalid rbac option")
	}
	return nil
}

type RbacPrivilege string

const (
	RbacPrivilegeView   RbacPrivilege = "View"
	RbacPrivilegeCreate RbacPrivilege = "Create"
	RbacPrivilegeUpdate RbacPrivilege = "Update"
	RbacPrivilegeDelete RbacPrivilege = "Delete"
)

func (t RbacPrivilege) MarshalGQL(w io.Writer) {
	w.Write([]byte(strconv.Quote(string(t))))
}

func (t *RbacPrivilege) UnmarshalGQL(i interface{}) error {
	str, ok := i.(string)
	if !ok {
		return errors.New("rbac privilege must be string")
	}
	switch str {
	case "View", "Create", "Update", "Delete":
		*t = RbacPrivilege(str)
	default:
		return errors.New("invalid rbac privilege")
	}
	return nil
}

// RbacResource names a filterable resource in the permission grid.
type RbacResource string

const (
	RbacResourceOrder          RbacResource = "ORDER"
	RbacResourceQuote          RbacResource = "QUOTE"
	RbacResourceInvoice        RbacResource = "INVOICE"
	RbacResourceCredit         RbacResource = "CREDIT"
	RbacResourceCheck          RbacResource = "CHECK"
	RbacResourceAdjustment     RbacResource = "ADJUSTMENT"
	RbacResourceCustomer       RbacResource = "CUSTOMER"
	RbacResourceJob            RbacResource = "JOB"
	RbacResourceTask           RbacResource = "TASK"
	RbacResourcePreOpportunity RbacResource = "PRE_OPPORTUNITY"
	RbacResourceFulfillment    RbacResource = "FULFILLMENT"
)

func (t RbacResource) MarshalGQL(w io.Writer) {
	w.Write([]byte(strconv.Quote(string(t))))
}

func (t *RbacResource) UnmarshalGQL(i interface{}) error {
	str, ok := i.(string)
	if !ok {
		return errors.New("rbac resource must be string")
	}
	*t = RbacResource(str)
	return nil
}

/* search */

// SearchSourceType identifies the entity a universal-search row came from.
// The integer code rides in the UNION column; the string form is the API value.
type SearchSourceType string

const (
	SearchSourceTypeCustomer       SearchSourceType = "Customer"
	SearchSourceTypeFactory        SearchSourceType = "Factory"
	SearchSourceTypeProduct        SearchSourceType = "Product"
	SearchSourceTypeContact        SearchSourceType = "Contact"
	SearchSourceTypeOrder          SearchSourceType = "Order"
	SearchSourceTypeQuote          SearchSourceType = "Quote"
	SearchSourceTypeInvoice        SearchSourceType = "Invoice"
	SearchSourceTypeJob            SearchSourceType = "Job"
	SearchSourceTypePreOpportunity SearchSourceType = "PreOpportunity"
	SearchSourceTypeUser           SearchSourceType = "User"
)

var searchSourceTypeCodes = map[SearchSourceType]int{
	SearchSourceTypeCustomer:       1,
	SearchSourceTypeFactory:        2,
	SearchSourceTypeProduct:        3,
	SearchSourceTypeContact:        4,
	SearchSourceTypeOrder:          5,
	SearchSourceTypeQuote:          6,
	SearchSourceTypeInvoice:        7,
	SearchSourceTypeJob:            8,
	SearchSourceTypePreOpportunity: 9,
	SearchSourceTypeUser:           10,
}

func (t SearchSourceType) Code() int {
	return searchSourceTypeCodes[t]
}

func SearchSourceTypeFromCode(code int) SearchSourceType {
	for t, c := range searchSourceTypeCodes {
		if c == code {
			return t
		}
	}
	return ""
}

func (t SearchSourceType) MarshalGQL(w io.Writer) {
	w.Write([]byte(strconv.Quote(string(t))))
}

func (t *SearchSourceType) UnmarshalGQL(i interface{}) error {
	str, ok := i.(string)
	if !ok {
		return errors.New("search source type must be string")
	}
	*t = SearchSourceType(str)
	return nil
}

/* watchers / events */

// EntityType names a watchable or bulk-deletable entity kind.
type EntityType string

const (
	EntityTypeOrder          EntityType = "Order"
	EntityTypeQuote          EntityType = "Quote"
	EntityTypeInvoice        EntityType = "Invoice"
	EntityTypeCredit         EntityType = "Credit"
	EntityTypeCheck          EntityType = "Check"
	EntityTypeAdjustment     EntityType = "Adjustment"
	EntityTypeJob            EntityType = "Job"
	EntityTypeTask           EntityType = "Task"
	EntityTypePreOpportunity EntityType = "PreOpportunity"
)

func (t EntityType) MarshalGQL(w io.Writer) {
	w.Write([]byte(strconv.Quote(string(t))))
}

func (t *EntityType) UnmarshalGQL(i interface{}) error {
	str, ok := i.(string)
	if !ok {
		return errors.New("entity type must be string")
	}
	switch str {
	case "Order", "Quote", "Invoice", "Credit", "Check", "Adjustment",
		"Job", "Task", "PreOpportunity":
		*t = EntityType(str)
	default:
		return fmt.Errorf("invalid entity type %q", str)
	}
	return nil
}

/* sales team <-> territory sync */

type SyncDirection string

const (
	SyncDirectionTeamToTerritory SyncDirection = "SYNC_TEAM_TO_TERRITORY"
	SyncDirectionTerritoryToTeam SyncDirection = "SYNC_TERRITORY_TO_TEAM"
)

func (t SyncDirection) MarshalGQL(w io.Writer) {
	w.Write([]byte(strconv.Quote(string(t))))
}

func (t *SyncDirection) UnmarshalGQL(i interface{}) error {
	str, ok := i.(string)
	if !ok {
		return errors.New("sync direction must be string")
	}
	switch str {
	case "SYNC_TEAM_TO_TERRITORY":
		*t = SyncDirectionTeamToTerritory
	case "SYNC_TERRITORY_TO_TEAM":
		*t = SyncDirectionTerritoryToTeam
	default:
		return errors.New("invalid sync direction")
	}
	return nil
}

/* sidebar */

type SidebarOwnerType string

const (
	SidebarOwnerTypeAdmin SidebarOwnerType = "Admin"
	SidebarOwnerTypeUser  SidebarOwnerType = "User"
)

func (t SidebarOwnerType) MarshalGQL(w io.Writer) {
	w.Write([]byte(strconv.Quote(string(t))))
}

func (t *SidebarOwnerType) UnmarshalGQL(i interface{}) error {
	str, ok := i.(string)
	if !ok {
		return errors.New("sidebar owner type must be string")
	}
	switch str {
	case "Admin", "User":
		*t = SidebarOwnerType(str)
	default:
		return errors.New("invalid sidebar owner type")
	}
	return nil
}

/* repository events */

type EventAction string

const (
	EventActionPostUpdate EventAction = "POST_UPDATE"
	EventActionPostDelete EventAction = "POST_DELETE"
)

/* outbox */

type OutboxPublishStatus = string

const (
	OutboxPublishStatusPending    OutboxPublishStatus = "PENDING"
	OutboxPublishStatusProcessing OutboxPublishStatus = "PROCESSING"
	OutboxPublishStatusSent       OutboxPublishStatus = "SENT"
	OutboxPublishStatusFailed     OutboxPublishStatus = "FAILED"
	OutboxPublishStatusDead       OutboxPublishStatus = "DEAD"
)
