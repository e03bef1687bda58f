package models

// Data is the constraint for single-row dataloader results. Identifier is
// declared alongside the connection types; every Base-derived model
// satisfies it through its uuid primary key.
type Data interface {
	Identifier
}

// RelatedData is the constraint for one-to-many dataloader results, keyed by
// the owning row's id.
type RelatedData interface {
	GetReferenceId() string
}

func (d OrderDetail) GetReferenceId() string {
	return d.OrderId
}

func (s OrderSplitRate) GetReferenceId() string {
	return s.OrderDetailId
}

func (r OrderInsideRep) GetReferenceId() string {
	return r.OrderDetailId
}

func (b OrderBalance) GetReferenceId() string {
	return b.OrderId
}

func (d QuoteDetail) GetReferenceId() string {
	return d.QuoteId
}

func (d InvoiceDetail) GetReferenceId() string {
	return d.InvoiceId
}

func (s InvoiceSplitRate) GetReferenceId() string {
	return s.InvoiceDetailId
}

func (d CreditDetail) GetReferenceId() string {
	return d.CreditId
}

func (d CheckDetail) GetReferenceId() string {
	return d.CheckId
}

func (l FulfillmentOrderLineItem) GetReferenceId() string {
	return l.FulfillmentOrderId
}

func (o CustomerOwner) GetReferenceId() string {
	return o.CustomerId
}
