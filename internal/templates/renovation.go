package templates

import (
	"fmt"
	"strings"
)

func init() {
	register(&Template{
		ID:          Renovation,
		Name:        "Renovation Contract",
		Description: "Scope, price and schedule for work between a property owner and a contractor.",
		Fields: append(commonFields("Owner", "Contractor"),
			Field{Key: "scopeOfWork", Label: "Scope of Work", Placeholder: "[SCOPE OF WORK]"},
			Field{Key: "contractPrice", Label: "Contract Price", Placeholder: "[AMOUNT]"},
			Field{Key: "startDate", Label: "Start Date", Placeholder: "[START DATE]"},
			Field{Key: "completionDate", Label: "Completion Date", Placeholder: "[COMPLETION DATE]"},
			Field{Key: "paymentSchedule", Label: "Payment Schedule", Placeholder: "[PAYMENT SCHEDULE]"},
			Field{Key: "warrantyPeriod", Label: "Warranty Period", Placeholder: "[WARRANTY PERIOD]"},
		),
		render: renderRenovation,
	})
}

func renderRenovation(v values) string {
	var b strings.Builder

	fmt.Fprintf(&b, "RENOVATION CONTRACT\n\n")
	fmt.Fprintf(&b, "This Renovation Contract is made on %s between %s (\"Owner\") and %s (\"Contractor\").\n\n",
		v.get("date"), v.get("partyOne"), v.get("partyTwo"))

	fmt.Fprintf(&b, "1. PROPERTY\nThe work will be performed at %s.\n\n", v.get("propertyAddress"))
	fmt.Fprintf(&b, "2. SCOPE OF WORK\n%s\n\n", v.get("scopeOfWork"))
	fmt.Fprintf(&b, "3. CONTRACT PRICE\nOwner shall pay Contractor %s for the work described above.\n\n",
		v.get("contractPrice"))
	fmt.Fprintf(&b, "4. PAYMENT SCHEDULE\n%s\n\n", v.get("paymentSchedule"))
	fmt.Fprintf(&b, "5. SCHEDULE\nWork shall begin on %s and be substantially complete by %s.\n\n",
		v.get("startDate"), v.get("completionDate"))
	fmt.Fprintf(&b, "6. WARRANTY\nContractor warrants all workmanship for %s after completion.\n\n",
		v.get("warrantyPeriod"))
	fmt.Fprintf(&b, "7. ADDITIONAL TERMS\n%s\n", v.get("terms"))

	signatureBlock(&b, v, "Owner", "Contractor")
	return b.String()
}
