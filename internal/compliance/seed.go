package compliance

import (
	"fmt"
	"time"
)

// seedComplianceRecords returns the statutory checklist the dashboard is
// seeded with. Monthly items carry day-of-month due dates; quarterly and
// annual items carry full calendar dates.
func seedComplianceRecords() []*ComplianceRecord {
	seeded := time.Date(2024, time.June, 1, 9, 0, 0, 0, time.UTC)

	checklist := []ComplianceRecord{
		{Name: "TDS / TCS Challan Payment", Frequency: FrequencyMonthly, Criticality: CriticalityHigh, DueDate: "7", Status: StatusCompleted, ActualCompletionDate: "2024-06-05"},
		{Name: "GSTR-1 Filing", Frequency: FrequencyMonthly, Criticality: CriticalityHigh, DueDate: "11", Status: StatusNotCompleted, DelayReason: "Pending bank verification"},
		{Name: "PF & ESI Payment", Frequency: FrequencyMonthly, Criticality: CriticalityMedium, DueDate: "15", Status: StatusWIP},
		{Name: "GSTR-3B Filing", Frequency: FrequencyMonthly, Criticality: CriticalityHigh, DueDate: "20", Status: StatusNotCompleted},
		{Name: "Quarter 1 TDS Filing", Frequency: FrequencyQuarterly, Criticality: CriticalityMedium, DueDate: "2024-07-31", Status: StatusWIP},
		{Name: "Quarter 2 TDS Filing", Frequency: FrequencyQuarterly, Criticality: CriticalityMedium, DueDate: "2024-09-30", Status: StatusNotCompleted},
		{Name: "Quarter 3 TDS Filing", Frequency: FrequencyQuarterly, Criticality: CriticalityMedium, DueDate: "2025-01-31", Status: StatusNotCompleted},
		{Name: "Quarter 4 TDS Filing", Frequency: FrequencyQuarterly, Criticality: CriticalityMedium, DueDate: "2025-05-31", Status: StatusNotCompleted},
		{Name: "Quarter 1 Advance Tax", Frequency: FrequencyQuarterly, Criticality: CriticalityHigh, DueDate: "2024-06-15", Status: StatusCompleted, ActualCompletionDate: "2024-06-14"},
		{Name: "Quarter 2 Advance Tax", Frequency: FrequencyQuarterly, Criticality: CriticalityHigh, DueDate: "2024-09-15", Status: StatusNotCompleted},
		{Name: "Quarter 3 Advance Tax", Frequency: FrequencyQuarterly, Criticality: CriticalityHigh, DueDate: "2024-12-15", Status: StatusNotCompleted},
		{Name: "Quarter 4 Advance Tax", Frequency: FrequencyQuarterly, Criticality: CriticalityHigh, DueDate: "2025-03-15", Status: StatusNotCompleted},
		{Name: "Non-Audit Cases - IT Filing", Frequency: FrequencyAnnual, Criticality: CriticalityMedium, DueDate: "2024-07-31", Status: StatusWIP},
		{Name: "Tax Audit Cases - IT Filing", Frequency: FrequencyAnnual, Criticality: CriticalityHigh, DueDate: "2024-09-30", Status: StatusNotCompleted},
		{Name: "GST 9 & 9C Filing", Frequency: FrequencyAnnual, Criticality: CriticalityHigh, DueDate: "2024-12-31", Status: StatusNotCompleted},
	}

	records := make([]*ComplianceRecord, 0, len(checklist))
	for i := range checklist {
		rec := checklist[i]
		rec.ID = recordID(i)
		rec.LastUpdated = seeded
		if rec.ActualCompletionDate != "" {
			if days, err := DelayDays(rec.DueDate, rec.ActualCompletionDate); err == nil {
				rec.DelayDays = days
			}
		}
		records = append(records, &rec)
	}
	return records
}

// seedRevenueRecords returns the seeded revenue book
func seedRevenueRecords() []*RevenueRecord {
	book := []RevenueRecord{
		{ID: "rev-1", Date: "2024-01-05", Source: "Global Tech Solutions", Mode: "Wire Transfer", Amount: 450000, Category: "Services"},
		{ID: "rev-2", Date: "2024-01-12", Source: "Initech Corp", Mode: "ACH", Amount: 280000, Category: "Product License"},
		{ID: "rev-3", Date: "2024-02-08", Source: "Hooli Ltd", Mode: "Wire Transfer", Amount: 620000, Category: "Consulting"},
		{ID: "rev-4", Date: "2024-03-15", Source: "Dunder Mifflin", Mode: "Check", Amount: 150000, Category: "Retail"},
		{ID: "rev-5", Date: "2024-04-20", Source: "Stark Ind.", Mode: "Wire Transfer", Amount: 980000, Category: "SaaS"},
	}

	records := make([]*RevenueRecord, 0, len(book))
	for i := range book {
		rec := book[i]
		records = append(records, &rec)
	}
	return records
}

func recordID(i int) string {
	return fmt.Sprintf("comp-%d", i)
}
