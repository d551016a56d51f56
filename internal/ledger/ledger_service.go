package ledger

// LedgerService assembles a replay sequence from the repository's event
// rows. Read-only by construction: it only ever holds copies of the rows.
type LedgerService struct {
	lr LedgerRepository
}

func NewService(lr LedgerRepository) *LedgerService {
	return &LedgerService{lr: lr}
}

func (s *LedgerService) Reconstruct(commodityID, productionUnitID int64, dateRange DateRange) (*Sequence, error) {
	inbound, err := s.lr.GetInboundRows(commodityID, productionUnitID)
	if err != nil {
		return nil, err
	}
	usageOut, err := s.lr.GetUsageOutflows(commodityID, productionUnitID)
	if err != nil {
		return nil, err
	}
	mutationOut, err := s.lr.GetMutationOutflows(commodityID, productionUnitID)
	if err != nil {
		return nil, err
	}

	return BuildSequence(inbound, usageOut, mutationOut, dateRange), nil
}
