package auth

// CanMutate reports whether the acting user owns the resource.
func CanMutate(actingUserID, ownerID string) bool {
	return actingUserID != "" && actingUserID == ownerID
}
