package templates

import (
	"fmt"
	"strings"
)

func init() {
	register(&Template{
		ID:          LeaseOption,
		Name:        "Lease With Option to Purchase",
		Description: "Residential lease granting the tenant an option to buy the property.",
		Fields: append(commonFields("Tenant", "Landlord"),
			Field{Key: "monthlyRent", Label: "Monthly Rent", Placeholder: "[AMOUNT]"},
			Field{Key: "optionFee", Label: "Option Fee", Placeholder: "[OPTION FEE]"},
			Field{Key: "optionPrice", Label: "Option Purchase Price", Placeholder: "[OPTION PRICE]"},
			Field{Key: "leaseTerm", Label: "Lease Term", Placeholder: "[LEASE TERM]"},
			Field{Key: "leaseStartDate", Label: "Lease Start Date", Placeholder: "[START DATE]"},
			Field{Key: "rentCredit", Label: "Rent Credit", Placeholder: "[RENT CREDIT]"},
		),
		render: renderLeaseOption,
	})
}

func renderLeaseOption(v values) string {
	var b strings.Builder

	fmt.Fprintf(&b, "LEASE WITH OPTION TO PURCHASE\n\n")
	fmt.Fprintf(&b, "This Lease-Option Agreement is made on %s between %s (\"Tenant\") and %s (\"Landlord\").\n\n",
		v.get("date"), v.get("partyOne"), v.get("partyTwo"))

	fmt.Fprintf(&b, "1. PREMISES\nLandlord leases to Tenant the property located at %s.\n\n", v.get("propertyAddress"))
	fmt.Fprintf(&b, "2. TERM\nThe lease term is %s beginning on %s.\n\n", v.get("leaseTerm"), v.get("leaseStartDate"))
	fmt.Fprintf(&b, "3. RENT\nTenant shall pay %s per month, due on the first day of each month.\n\n", v.get("monthlyRent"))
	fmt.Fprintf(&b, "4. OPTION FEE\nTenant pays a non-refundable option fee of %s, credited toward the purchase price if the option is exercised.\n\n",
		v.get("optionFee"))
	fmt.Fprintf(&b, "5. OPTION TO PURCHASE\nTenant may purchase the property for %s at any time during the lease term.\n\n",
		v.get("optionPrice"))
	fmt.Fprintf(&b, "6. RENT CREDIT\n%s of each monthly payment is credited toward the purchase price.\n\n", v.get("rentCredit"))
	fmt.Fprintf(&b, "7. ADDITIONAL TERMS\n%s\n", v.get("terms"))

	signatureBlock(&b, v, "Tenant", "Landlord")
	return b.String()
}
