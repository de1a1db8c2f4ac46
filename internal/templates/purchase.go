package templates

import (
	"fmt"
	"strings"
)

func init() {
	register(&Template{
		ID:          Purchase,
		Name:        "Purchase Agreement",
		Description: "Residential purchase and sale between a buyer and a seller.",
		Fields: append(commonFields("Buyer", "Seller"),
			Field{Key: "purchasePrice", Label: "Purchase Price", Placeholder: "[AMOUNT]"},
			Field{Key: "earnestMoney", Label: "Earnest Money", Placeholder: "[EARNEST MONEY]"},
			Field{Key: "closingDate", Label: "Closing Date", Placeholder: "[CLOSING DATE]"},
			Field{Key: "financingTerms", Label: "Financing Terms", Placeholder: "[FINANCING TERMS]"},
			Field{Key: "inspectionPeriod", Label: "Inspection Period", Placeholder: "[INSPECTION PERIOD]"},
		),
		render: renderPurchase,
	})
}

func renderPurchase(v values) string {
	var b strings.Builder

	fmt.Fprintf(&b, "REAL ESTATE PURCHASE AGREEMENT\n\n")
	fmt.Fprintf(&b, "This Purchase Agreement is entered into on %s between %s (\"Buyer\") and %s (\"Seller\").\n\n",
		v.get("date"), v.get("partyOne"), v.get("partyTwo"))

	fmt.Fprintf(&b, "1. PROPERTY\nSeller agrees to sell and Buyer agrees to buy the real property located at %s.\n\n",
		v.get("propertyAddress"))
	fmt.Fprintf(&b, "2. PURCHASE PRICE\nThe total purchase price is %s, payable at closing.\n\n", v.get("purchasePrice"))
	fmt.Fprintf(&b, "3. EARNEST MONEY\nBuyer shall deposit %s as earnest money within three business days of acceptance.\n\n",
		v.get("earnestMoney"))
	fmt.Fprintf(&b, "4. FINANCING\n%s\n\n", v.get("financingTerms"))
	fmt.Fprintf(&b, "5. INSPECTION\nBuyer may inspect the property during an inspection period of %s.\n\n",
		v.get("inspectionPeriod"))
	fmt.Fprintf(&b, "6. CLOSING\nClosing shall occur on or before %s.\n\n", v.get("closingDate"))
	fmt.Fprintf(&b, "7. ADDITIONAL TERMS\n%s\n", v.get("terms"))

	signatureBlock(&b, v, "Buyer", "Seller")
	return b.String()
}
