/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package docquery evaluates rendered filters, sorts and $set updates against
// raw BSON documents held in process. The mock and ddb drivers use it so that
// they agree with MongoDB on what a filter selects.
//
// Supported operators: $eq, $ne, $gt, $gte, $lt, $lte, $in, $nin, $exists,
// $and, $or and $nor. Values of different BSON types compare in the server's
// canonical type order, and all numeric types compare by value.
package docquery
