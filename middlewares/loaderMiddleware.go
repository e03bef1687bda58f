package middlewares

import (
	"context"
	"time"

	"github.com/flowplatform/flow_backend/config"
	"github.com/flowplatform/flow_backend/models"
	"github.com/gin-gonic/gin"
	"github.com/graph-gophers/dataloader/v7"
	"gorm.io/gorm"
)

type ctxKey string

const (
	loadersKey = ctxKey("dataloaders")
)

// Loaders wrap the per-request data loaders injected via middleware.
type Loaders struct {
	userLoader     *dataloader.Loader[string, *models.User]
	customerLoader *dataloader.Loader[string, *models.Customer]
	factoryLoader  *dataloader.Loader[string, *models.Factory]
	productLoader  *dataloader.Loader[string, *models.Product]
	orderLoader    *dataloader.Loader[string, *models.Order]
	invoiceLoader  *dataloader.Loader[string, *models.Invoice]

	customerOwnerLoader *dataloader.Loader[string, []*models.CustomerOwner]

	orderDetailLoader    *dataloader.Loader[string, []*models.OrderDetail]
	orderSplitRateLoader *dataloader.Loader[string, []*models.OrderSplitRate]
	orderInsideRepLoader *dataloader.Loader[string, []*models.OrderInsideRep]
	orderBalanceLoader   *dataloader.Loader[string, *models.OrderBalance]

	quoteDetailLoader      *dataloader.Loader[string, []*models.QuoteDetail]
	invoiceDetailLoader    *dataloader.Loader[string, []*models.InvoiceDetail]
	invoiceSplitRateLoader *dataloader.Loader[string, []*models.InvoiceSplitRate]
	creditDetailLoader     *dataloader.Loader[string, []*models.CreditDetail]
	checkDetailLoader      *dataloader.Loader[string, []*models.CheckDetail]

	fulfillmentLineItemLoader *dataloader.Loader[string, []*models.FulfillmentOrderLineItem]
}

// NewLoaders instantiates data loaders bound to the request's tenant database.
func NewLoaders(conn *gorm.DB) *Loaders {
	userReader := &userReader{db: conn}
	customerReader := &customerReader{db: conn}
	factoryReader := &factoryReader{db: conn}
	productReader := &productReader{db: conn}
	orderReader := &orderReader{db: conn}
	invoiceReader := &invoiceReader{db: conn}

	customerOwnerReader := &customerOwnerReader{db: conn}

	orderDetailReader := &orderDetailReader{db: conn}
	orderSplitRateReader := &orderSplitRateReader{db: conn}
	orderInsideRepReader := &orderInsideRepReader{db: conn}
	orderBalanceReader := &orderBalanceReader{db: conn}

	quoteDetailReader := &quoteDetailReader{db: conn}
	invoiceDetailReader := &invoiceDetailReader{db: conn}
	invoiceSplitRateReader := &invoiceSplitRateReader{db: conn}
	creditDetailReader := &creditDetailReader{db: conn}
	checkDetailReader := &checkDetailReader{db: conn}

	fulfillmentLineItemReader := &fulfillmentLineItemReader{db: conn}

	return &Loaders{
		userLoader:     dataloader.NewBatchedLoader(userReader.getUsers, dataloader.WithWait[string, *models.User](time.Millisecond)),
		customerLoader: dataloader.NewBatchedLoader(customerReader.getCustomers, dataloader.WithWait[string, *models.Customer](time.Millisecond)),
		factoryLoader:  dataloader.NewBatchedLoader(factoryReader.getFactories, dataloader.WithWait[string, *models.Factory](time.Millisecond)),
		productLoader:  dataloader.NewBatchedLoader(productReader.getProducts, dataloader.WithWait[string, *models.Product](time.Millisecond)),
		orderLoader:    dataloader.NewBatchedLoader(orderReader.getOrders, dataloader.WithWait[string, *models.Order](time.Millisecond)),
		invoiceLoader:  dataloader.NewBatchedLoader(invoiceReader.getInvoices, dataloader.WithWait[string, *models.Invoice](time.Millisecond)),

		customerOwnerLoader: dataloader.NewBatchedLoader(customerOwnerReader.getCustomerOwners, dataloader.WithWait[string, []*models.CustomerOwner](time.Millisecond)),

		orderDetailLoader:    dataloader.NewBatchedLoader(orderDetailReader.getOrderDetails, dataloader.WithWait[string, []*models.OrderDetail](time.Millisecond)),
		orderSplitRateLoader: dataloader.NewBatchedLoader(orderSplitRateReader.getOrderSplitRates, dataloader.WithWait[string, []*models.OrderSplitRate](time.Millisecond)),
		orderInsideRepLoader: dataloader.NewBatchedLoader(orderInsideRepReader.getOrderInsideReps, dataloader.WithWait[string, []*models.OrderInsideRep](time.Millisecond)),
		orderBalanceLoader:   dataloader.NewBatchedLoader(orderBalanceReader.getOrderBalances, dataloader.WithWait[string, *models.OrderBalance](time.Millisecond)),

		quoteDetailLoader:      dataloader.NewBatchedLoader(quoteDetailReader.getQuoteDetails, dataloader.WithWait[string, []*models.QuoteDetail](time.Millisecond)),
		invoiceDetailLoader:    dataloader.NewBatchedLoader(invoiceDetailReader.getInvoiceDetails, dataloader.WithWait[string, []*models.InvoiceDetail](time.Millisecond)),
		invoiceSplitRateLoader: dataloader.NewBatchedLoader(invoiceSplitRateReader.getInvoiceSplitRates, dataloader.WithWait[string, []*models.InvoiceSplitRate](time.Millisecond)),
		creditDetailLoader:     dataloader.NewBatchedLoader(creditDetailReader.getCreditDetails, dataloader.WithWait[string, []*models.CreditDetail](time.Millisecond)),
		checkDetailLoader:      dataloader.NewBatchedLoader(checkDetailReader.getCheckDetails, dataloader.WithWait[string, []*models.CheckDetail](time.Millisecond)),

		fulfillmentLineItemLoader: dataloader.NewBatchedLoader(fulfillmentLineItemReader.getFulfillmentLineItems, dataloader.WithWait[string, []*models.FulfillmentOrderLineItem](time.Millisecond)),
	}
}

func LoaderMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		loader := NewLoaders(config.DBFromContext(c.Request.Context()))
		ctx := context.WithValue(c.Request.Context(), loadersKey, loader)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func For(ctx context.Context) *Loaders {
	return ctx.Value(loadersKey).(*Loaders)
}

// handleError creates array of result with the same error repeated for as many items requested
func handleError[T any](itemsLength int, err error) []*dataloader.Result[T] {
	result := make([]*dataloader.Result[T], itemsLength)
	for i := 0; i < itemsLength; i++ {
		result[i] = &dataloader.Result[T]{Error: err}
	}
	return result
}

// turns results from db into dataloader results, nil data for ids not found
func generateLoaderResults[T models.Data](results []T, ids []string) []*dataloader.Result[*T] {
	resultMap := make(map[string]T, len(results))
	for _, result := range results {
		resultMap[result.GetId()] = result
	}

	loaderResults := make([]*dataloader.Result[*T], 0, len(ids))
	for _, id := range ids {
		if data, ok := resultMap[id]; ok {
			copy := data
			loaderResults = append(loaderResults, &dataloader.Result[*T]{Data: &copy})
		} else {
			loaderResults = append(loaderResults, &dataloader.Result[*T]{})
		}
	}
	return loaderResults
}

// each id owns zero or more related results
func generateLoaderArrayResults[T models.RelatedData](results []T, referenceIds []string) (loaderResults []*dataloader.Result[[]*T]) {
	resultMap := make(map[string][]*T)
	for _, result := range results {
		// creating a new variable every turn, to avoid pointing to the address of result
		copy := result
		resultMap[result.GetReferenceId()] = append(resultMap[result.GetReferenceId()], &copy)
	}
	for _, id := range referenceIds {
		loaderResults = append(loaderResults, &dataloader.Result[[]*T]{Data: resultMap[id]})
	}
	return loaderResults
}
