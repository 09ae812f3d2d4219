package models

type Identifier interface {
	GetId() int
}

// interface for dataloader result
type Data interface {
	Identifier
	GetDefault(int) Data
}

func (i Item) GetId() int {
	return i.ID
}

func (i Item) GetDefault(id int) Data {
	return Item{ID: id, Name: "(deleted item)"}
}

func (w Warehouse) GetId() int {
	return w.ID
}

func (w Warehouse) GetDefault(id int) Data {
	return Warehouse{ID: id, Name: "(deleted warehouse)"}
}

func (u User) GetId() int {
	return u.ID
}

func (u User) GetDefault(id int) Data {
	return User{ID: id, Name: "(unknown user)"}
}
