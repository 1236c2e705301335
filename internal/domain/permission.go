package domain

func CanEdit(actor *User, incident *Incident) bool {
	return actor.ID == incident.CreatorID || actor.Role.Privileged()
}

func CanAssign(actor *User, _ *Incident) bool {
	return actor.Role.Privileged()
}

func CanUpdateStatus(actor *User, incident *Incident) bool {
	if incident.AssigneeID != nil && *incident.AssigneeID == actor.ID {
		return true
	}
	return actor.Role.Privileged()
}
