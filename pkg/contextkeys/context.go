package contextkeys

// Keys used with gin.Context.Set/Get. Kept in one place so middleware and
// handlers cannot drift apart.
const (
	UserIDKey = "userID"
	RoleKey   = "role"
)
