package state

import "organisekaro/backend/internal/domain"

// Action is a closed set of state transitions. The unexported marker keeps
// implementations inside this package so Reduce can switch over all of them.
type Action interface {
	Name() string
	action()
}

type AddItem struct{ Item domain.InventoryItem }
type UpdateItem struct{ Item domain.InventoryItem }
type DeleteItem struct{ ID string }
type AddParty struct{ Party domain.Party }
type UpdateParty struct{ Party domain.Party }
type DeleteParty struct{ ID string }
type CreateInvoice struct{ Invoice domain.Invoice }
type UpdateSettings struct{ Patch domain.SettingsPatch }
type RestoreData struct{ State domain.AppState }
type ResetData struct{}

func (AddItem) Name() string        { return "ADD_ITEM" }
func (UpdateItem) Name() string     { return "UPDATE_ITEM" }
func (DeleteItem) Name() string     { return "DELETE_ITEM" }
func (AddParty) Name() string       { return "ADD_PARTY" }
func (UpdateParty) Name() string    { return "UPDATE_PARTY" }
func (DeleteParty) Name() string    { return "DELETE_PARTY" }
func (CreateInvoice) Name() string  { return "CREATE_INVOICE" }
func (UpdateSettings) Name() string { return "UPDATE_SETTINGS" }
func (RestoreData) Name() string    { return "RESTORE_DATA" }
func (ResetData) Name() string      { return "RESET_DATA" }

func (AddItem) action()        {}
func (UpdateItem) action()     {}
func (DeleteItem) action()     {}
func (AddParty) action()       {}
func (UpdateParty) action()    {}
func (DeleteParty) action()    {}
func (CreateInvoice) action()  {}
func (UpdateSettings) action() {}
func (RestoreData) action()    {}
func (ResetData) action()      {}
