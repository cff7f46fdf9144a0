package model

// Subscriber は加入者情報を表す。
// Valkeyキー: sub:{UserName}
type Subscriber struct {
	UserName  string `json:"user_name"`  // ユーザー名（realm除去後）
	Password  string `json:"password"`   // クリアテキストパスワード
	VlanID    int    `json:"vlan_id"`    // 割当VLAN（0は未割当）
	CreatedAt string `json:"created_at"` // 作成日時（RFC3339形式）
}

// NewSubscriber は新しいSubscriberを生成する。
func NewSubscriber(userName, password string, vlanID int, createdAt string) *Subscriber {
	return &Subscriber{
		UserName:  userName,
		Password:  password,
		VlanID:    vlanID,
		CreatedAt: createdAt,
	}
}
