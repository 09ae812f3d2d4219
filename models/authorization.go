package models

import (
	"context"

	"github.com/mmdatafocus/workorder_backend/utils"
)

type Action string

const (
	ActionCreateWorkOrder       Action = "work_order.create"
	ActionDeleteWorkOrder       Action = "work_order.delete"
	ActionBindBom               Action = "work_order.bind_bom"
	ActionEngineeringTransition Action = "transition.engineering"
	ActionInventoryTransition   Action = "transition.inventory"
	ActionManufactureTransition Action = "transition.manufacture"
	ActionIssueMaterial         Action = "disposition.material_issue"
	ActionReverseMaterialIssue  Action = "disposition.material_issue.reverse"
	ActionRequestPurchase       Action = "disposition.purchase_request"
	ActionManageAmendment       Action = "amendment.manage"
	ActionManageMasterData      Action = "master_data.manage"
	ActionReceiveStock          Action = "stock.receive"
	ActionReplayEvent           Action = "ops.outbox.replay"
)

// roleMatrix lists the roles allowed to perform each mutating action. Reads are open
// to any authenticated user and are not listed.
var roleMatrix = map[Action][]UserRole{
	ActionCreateWorkOrder:       {UserRoleAdmin, UserRoleSales},
	ActionDeleteWorkOrder:       {UserRoleAdmin},
	ActionBindBom:               {UserRoleAdmin, UserRoleEngineering},
	ActionEngineeringTransition: {UserRoleAdmin, UserRoleEngineering},
	ActionInventoryTransition:   {UserRoleAdmin, UserRoleInventory},
	ActionManufactureTransition: {UserRoleAdmin, UserRoleManufacture},
	ActionIssueMaterial:         {UserRoleAdmin, UserRoleInventory},
	ActionReverseMaterialIssue:  {UserRoleAdmin, UserRoleInventory},
	ActionRequestPurchase:       {UserRoleAdmin, UserRoleInventory, UserRoleManufacture},
	ActionManageAmendment:       {UserRoleAdmin, UserRoleInventory, UserRoleManufacture},
	ActionManageMasterData:      {UserRoleAdmin},
	ActionReceiveStock:          {UserRoleAdmin, UserRoleInventory, UserRolePurchasing},
	ActionReplayEvent:           {UserRoleAdmin},
}

// Authorize fails with Unauthorized unless role may perform action.
func Authorize(role string, action Action) error {
	allowed, ok := roleMatrix[action]
	if !ok {
		return utils.NewUnauthorized("action %s is not permitted", action)
	}
	for _, r := range allowed {
		if string(r) == role {
			return nil
		}
	}
	return utils.NewUnauthorized("role %q may not perform %s", role, action)
}

// TransitionAction maps a department track to the action guarding it.
func TransitionAction(dept Department) Action {
	switch dept {
	case DepartmentEngineering:
		return ActionEngineeringTransition
	case DepartmentInventory:
		return ActionInventoryTransition
	case DepartmentManufacture:
		return ActionManufactureTransition
	}
	return Action("transition." + string(dept))
}

// authorizeContext resolves the acting user from ctx and checks action against the matrix.
func authorizeContext(ctx context.Context, action Action) (utils.Actor, error) {
	actor, err := utils.GetActorFromContext(ctx)
	if err != nil {
		return utils.Actor{}, err
	}
	if err := Authorize(actor.Role, action); err != nil {
		return utils.Actor{}, err
	}
	return actor, nil
}
