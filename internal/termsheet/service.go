package termsheet

// Service hands out per-owner stores that share one backend.
type Service struct {
	kv        KV
	namespace string
}

func NewService(kv KV, namespace string) *Service {
	if namespace == "" {
		namespace = "termSheets"
	}
	return &Service{kv: kv, namespace: namespace}
}

// ForOwner returns the store for ownerID, keyed "<namespace>:<ownerID>".
func (s *Service) ForOwner(ownerID string) *Store {
	return NewStore(s.kv, s.namespace+":"+ownerID)
}
